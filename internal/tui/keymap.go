package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig overrides default bindings; blank fields keep the default key.
type KeyConfig struct {
	ToggleKind string
	ToggleLong string
	CopyReport string
	CopyHTML   string
	PrevWindow string
	NextWindow string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	toggleKind key.Binding
	toggleLong key.Binding
	scrollUp   key.Binding
	scrollDown key.Binding
	pageUp     key.Binding
	pageDown   key.Binding
	top        key.Binding
	bottom     key.Binding
	copyReport key.Binding
	copyHTML   key.Binding
	prevWindow key.Binding
	nextWindow key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		toggleKind: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "journal/dashboard")),
		toggleLong: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "long/short")),
		scrollUp:   key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "scroll up")),
		scrollDown: key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "scroll down")),
		pageUp:     key.NewBinding(key.WithKeys("pgup", "b"), key.WithHelp("b/pgup", "page up")),
		pageDown:   key.NewBinding(key.WithKeys("pgdown", "space", " "), key.WithHelp("space", "page down")),
		top:        key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		bottom:     key.NewBinding(key.WithKeys("G", "shift+g", "end"), key.WithHelp("G", "bottom")),
		copyReport: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy markdown")),
		copyHTML:   key.NewBinding(key.WithKeys("Y", "shift+y"), key.WithHelp("Y", "copy html")),
		prevWindow: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous window")),
		nextWindow: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next window")),
	}
}

// applyConfig applies configured key overrides.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.toggleKind, cfg.ToggleKind, "tab", "journal/dashboard")
	configureBinding(&k.toggleLong, cfg.ToggleLong, "l", "long/short")
	configureBinding(&k.copyReport, cfg.CopyReport, "y", "copy markdown")
	configureBinding(&k.copyHTML, cfg.CopyHTML, "Y", "copy html")
	configureBinding(&k.prevWindow, cfg.PrevWindow, "[", "previous window")
	configureBinding(&k.nextWindow, cfg.NextWindow, "]", "next window")
}

// configureBinding rebinds b to raw, falling back to fallback when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns one configured key into matcher keys plus its help label.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + strings.ToLower(raw)}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.toggleKind, k.toggleLong, k.scrollDown, k.copyReport, k.reload, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggleKind, k.toggleLong, k.prevWindow, k.nextWindow, k.reload, k.toggleHelp, k.quit},
		{k.scrollUp, k.scrollDown, k.pageUp, k.pageDown, k.top, k.bottom},
		{k.copyReport, k.copyHTML},
	}
}
