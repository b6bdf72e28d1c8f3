// CLAUDE:SUMMARY In-page probe reporting page metadata, focus, context menus and window.close through a CDP binding.
package browser

import (
	"encoding/json"
	"fmt"
	"html"
	"maps"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/tabview/surface"
	"github.com/hazyhaar/tabview/viewstate"
)

// bindingName is the Runtime binding the probe reports through.
const bindingName = "__tabview_probe"

// probeJS is evaluated on every new document. It reports a snapshot of the
// page metadata whenever it changes (debounced), plus focus changes,
// context menus and script-initiated window.close.
var probeJS = fmt.Sprintf(`(() => {
	const binding = %q;
	const send = (kind, data) => {
		try { window[binding](JSON.stringify(Object.assign({kind}, data || {}))); } catch (e) {}
	};
	const icons = () => Array.from(document.querySelectorAll('link[rel~="icon"], link[rel="apple-touch-icon"]'))
		.map(l => ({href: l.href, rel: l.rel, sizes: l.getAttribute('sizes') || '', type: l.type || ''}));
	const meta = () => {
		const m = {};
		document.querySelectorAll('meta[name], meta[property]').forEach(e => {
			const k = e.getAttribute('name') || e.getAttribute('property');
			if (k && e.content) m[k] = e.content;
		});
		return m;
	};
	let last = '';
	const report = () => {
		const snap = {
			title: document.title,
			icons: icons(),
			meta: meta(),
			scroll: {
				content_height: document.documentElement.scrollHeight,
				viewport_height: window.innerHeight,
			},
		};
		const s = JSON.stringify(snap);
		if (s === last) return;
		last = s;
		send('snapshot', snap);
	};
	let timer;
	const schedule = () => { clearTimeout(timer); timer = setTimeout(report, 250); };
	document.addEventListener('DOMContentLoaded', () => {
		report();
		new MutationObserver(schedule).observe(document.documentElement,
			{subtree: true, childList: true, attributes: true, characterData: true});
	});
	window.addEventListener('load', report);
	window.addEventListener('resize', schedule);
	document.addEventListener('contextmenu', e => send('contextMenu', {text: (e.target && e.target.tagName) || ''}));
	window.addEventListener('focus', () => send('focus'));
	window.addEventListener('blur', () => send('blur'));
	window.close = () => send('close');
})()`, bindingName)

// probeMessage is one binding payload.
type probeMessage struct {
	Kind   string             `json:"kind"`
	Title  string             `json:"title"`
	Icons  []viewstate.Icon   `json:"icons"`
	Meta   map[string]string  `json:"meta"`
	Scroll surface.ScrollArea `json:"scroll"`
	Text   string             `json:"text"`
}

const (
	maxTitleLen = 1024
	maxMetaLen  = 4096
	maxMetaKeys = 64
)

// sanitizer strips markup from page-supplied text before it reaches view
// state and API consumers.
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() sanitizer {
	return sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s sanitizer) text(v string, limit int) string {
	v = strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
	if len(v) > limit {
		v = v[:limit]
		for !utf8.ValidString(v) {
			v = v[:len(v)-1]
		}
	}
	return v
}

// probeState remembers what the current document last reported so only
// changes become events. Reset on every new load.
type probeState struct {
	seen   bool
	title  string
	icons  map[string]viewstate.Icon
	meta   map[string]string
	scroll surface.ScrollArea
}

func (p *probeState) reset() { *p = probeState{} }

// decodeProbe turns one binding payload into surface events.
func (p *probeState) decode(payload string, san sanitizer) ([]surface.Event, error) {
	var msg probeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, fmt.Errorf("browser: probe payload: %w", err)
	}

	switch msg.Kind {
	case "close":
		return []surface.Event{{Kind: surface.Close}}, nil
	case "focus":
		return []surface.Event{{Kind: surface.Focus}}, nil
	case "blur":
		return []surface.Event{{Kind: surface.Blur}}, nil
	case "contextMenu":
		return []surface.Event{{Kind: surface.ContextMenu, Text: san.text(msg.Text, 64)}}, nil
	case "snapshot":
	default:
		return nil, fmt.Errorf("browser: unknown probe message %q", msg.Kind)
	}

	var events []surface.Event

	title := san.text(msg.Title, maxTitleLen)
	if !p.seen || title != p.title {
		p.title = title
		events = append(events, surface.Event{Kind: surface.TitleChange, Text: title})
	}

	for _, icon := range msg.Icons {
		if icon.Href == "" {
			continue
		}
		if old, ok := p.icons[icon.Href]; ok && old == icon {
			continue
		}
		if p.icons == nil {
			p.icons = make(map[string]viewstate.Icon)
		}
		p.icons[icon.Href] = icon
		events = append(events, surface.Event{Kind: surface.IconChange, Icon: icon})
	}

	meta := make(map[string]string, len(msg.Meta))
	for k, v := range msg.Meta {
		if len(meta) >= maxMetaKeys {
			break
		}
		meta[san.text(k, 128)] = san.text(v, maxMetaLen)
	}
	if !p.seen || !maps.Equal(meta, p.meta) {
		p.meta = meta
		events = append(events, surface.Event{Kind: surface.MetaChange, Meta: viewstate.Meta(maps.Clone(meta))})
	}

	if !p.seen || msg.Scroll != p.scroll {
		p.scroll = msg.Scroll
		events = append(events, surface.Event{Kind: surface.ScrollAreaChange, Scroll: msg.Scroll})
	}

	p.seen = true
	return events, nil
}
