package bridge

// widgetViewMIMEType is the MIME key Jupyter widgets publish under.
// The bridge does not support interactive widgets, so any bundle
// carrying it is rewritten to a static placeholder before it reaches
// the wire.
const widgetViewMIMEType = "application/vnd.jupyter.widget-view+json"

// widgetPlaceholderHTML is the exact placeholder copy from
// original_source/python/runtimed/src/runtimed/_ipython_bridge.py's
// _rewrite_widget_data, preserved verbatim so a sidecar renders the
// same message regardless of which side of the bridge produced it.
const widgetPlaceholderHTML = `<div style="padding: 8px 12px; border: 1px solid #e0e0e0; border-radius: 4px; background: #f8f8f8; color: #666; font-size: 13px;">&#9432; Widgets are not supported in the IPython Sidecar Bridge<br>Use <code>jupyter console</code> for full widget support.</div>`

const widgetFallbackPlainText = "(widget not available in bridged mode)"

// rewriteWidgetData returns data with the widget-view MIME key removed
// and a placeholder "text/html" entry substituted, leaving "text/plain"
// alone if present or adding a fallback if not. If data carries no
// widget-view entry it is returned unchanged, with identity preserved
// (the caller's map is never mutated either way).
func rewriteWidgetData(data map[string]any) map[string]any {
	if _, ok := data[widgetViewMIMEType]; !ok {
		return data
	}

	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == widgetViewMIMEType {
			continue
		}
		out[k] = v
	}
	out["text/html"] = widgetPlaceholderHTML
	if _, ok := out["text/plain"]; !ok {
		out["text/plain"] = widgetFallbackPlainText
	}
	return out
}
