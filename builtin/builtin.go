// Package builtin knows which HTML tag names have a dedicated element interface.
package builtin

// Tag names whose element interface is something other than HTMLUnknownElement.
var known = map[string]struct{}{}

func init() {
	for _, tag := range []string{
		"a", "abbr", "acronym", "address", "area", "article", "aside", "audio",
		"b", "base", "basefont", "bdi", "bdo", "big", "blockquote", "body", "br", "button",
		"canvas", "caption", "center", "cite", "code", "col", "colgroup",
		"data", "datalist", "dd", "del", "details", "dfn", "dialog", "dir", "div", "dl", "dt",
		"em", "embed",
		"fieldset", "figcaption", "figure", "font", "footer", "form", "frame", "frameset",
		"h1", "h2", "h3", "h4", "h5", "h6", "head", "header", "hgroup", "hr", "html",
		"i", "iframe", "img", "input", "ins",
		"kbd",
		"label", "legend", "li", "link", "listing",
		"main", "map", "mark", "marquee", "menu", "meta", "meter",
		"nav", "nobr", "noembed", "noframes", "noscript",
		"object", "ol", "optgroup", "option", "output",
		"p", "param", "picture", "plaintext", "pre", "progress",
		"q",
		"rb", "rp", "rt", "rtc", "ruby",
		"s", "samp", "script", "search", "section", "select", "slot", "small", "source",
		"span", "strike", "strong", "style", "sub", "summary", "sup",
		"table", "tbody", "td", "template", "textarea", "tfoot", "th", "thead", "time",
		"title", "tr", "track", "tt",
		"u", "ul",
		"var", "video",
		"wbr",
		"xmp",
	} {
		known[tag] = struct{}{}
	}
}

// IsKnown reports whether tag names a built-in HTML element. Obsolete tags such as
// applet, bgsound, blink, isindex, keygen, multicol, nextid and spacer map to
// HTMLUnknownElement and are not known.
func IsKnown(tag string) bool {
	_, ok := known[tag]
	return ok
}
