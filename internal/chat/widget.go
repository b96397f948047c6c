package chat

import _ "embed"

// WidgetJS is the embeddable web chat widget served at /api/chat/widget.js.
//
//go:embed widget.js
var WidgetJS []byte
