package browser

import (
	"encoding/json"
	"fmt"
)

// markAttr tags the element a locator resolved to so it can be addressed by
// a plain CSS selector afterwards.
const markAttr = "data-keepalive-target"

// Result codes returned by locateJS besides a match count.
const (
	locateInvalid = -2
	locateNoRoot  = -3
)

// locateJS counts the elements a locator matches in root. With mark >= 0 it
// also tags the mark-th match with token.
const locateJS = `(function(root, loc, mark, token) {
	if (!root) return -3;
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const view = root.defaultView;
		if (!view) return true;
		const s = view.getComputedStyle(el);
		return s.visibility !== 'hidden' && s.display !== 'none';
	};
	let els = [];
	try {
		if (loc.kind === 'css') {
			els = Array.from(root.querySelectorAll(loc.query));
		} else if (loc.kind === 'xpath') {
			const snap = root.evaluate(loc.query, root, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			for (let i = 0; i < snap.snapshotLength; i++) els.push(snap.snapshotItem(i));
		} else if (loc.kind === 'text') {
			const want = (loc.texts || []).map((t) => t.toLowerCase());
			els = Array.from(root.querySelectorAll(loc.tags || '*')).filter((el) => {
				const text = [el.innerText || el.textContent || '', el.value || '', el.getAttribute('aria-label') || '']
					.join(' ').toLowerCase();
				return want.some((w) => text.includes(w));
			});
		}
	} catch (e) {
		return -2;
	}
	if (loc.visible) els = els.filter(visible);
	if (mark >= 0 && mark < els.length) els[mark].setAttribute('` + markAttr + `', token);
	return els.length;
})`

// clickJS clicks the tagged element with a synthetic DOM click.
const clickJS = `(function(root, sel) {
	const el = root && root.querySelector(sel);
	if (!el) return false;
	el.click();
	return true;
})`

// framesJS lists same-origin frames as index paths from the top document.
const framesJS = `(function() {
	const out = [];
	const walk = (doc, path) => {
		doc.querySelectorAll('iframe, frame').forEach((f, i) => {
			let d = null;
			try { d = f.contentDocument; } catch (e) {}
			if (!d) return;
			const p = path.concat([i]);
			let href = '';
			try { href = f.contentWindow.location.href; } catch (e) { href = f.src || ''; }
			out.push({path: p, url: href});
			walk(d, p);
		});
	};
	walk(document, []);
	return out;
})()`

const bodyTextJS = `document.body ? document.body.innerText : ''`

type framePath struct {
	Path []int  `json:"path"`
	URL  string `json:"url"`
}

// frameRoot returns a JS expression for the document at path, or null once
// the frame has gone.
func frameRoot(path []int) string {
	p, _ := json.Marshal(path)
	return fmt.Sprintf(`(function(){ let d = document; for (const i of %s) { const f = d.querySelectorAll('iframe, frame')[i]; try { d = f && f.contentDocument; } catch (e) { d = null; } if (!d) return null; } return d; })()`, p)
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func markSelector(token string) string {
	return fmt.Sprintf(`[%s=%q]`, markAttr, token)
}

func locateExpr(root string, loc Locator, mark int, token string) (string, error) {
	l, err := json.Marshal(loc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s, %d, %s)", locateJS, root, l, mark, jsString(token)), nil
}

func clickExpr(root, sel string) string {
	return fmt.Sprintf("%s(%s, %s)", clickJS, root, jsString(sel))
}
