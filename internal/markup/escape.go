package markup

import "strings"

// escaper backslash-escapes characters that would otherwise start Markdown or extension syntax.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`#`, `\#`,
	`|`, `\|`,
	`~`, `\~`,
	`!`, `\!`,
	`&`, `\&`,
)

// Escape returns s as literal Markdown text.
func Escape(s string) string {
	return escaper.Replace(s)
}
