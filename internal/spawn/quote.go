package spawn

import "strings"

// quoteShell renders argv safe for a POSIX shell line. Single quotes with
// the usual '\'' escape; empty arguments become ''.
func quoteShell(argv []string) string {
	quoted := make([]string, len(argv))
	for i, arg := range argv {
		quoted[i] = quoteShellWord(arg)
	}
	return strings.Join(quoted, " ")
}

func quoteShellWord(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'`$\\&|;<>()*?[]#~%!{}") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// quoteAppleScript renders a string as an AppleScript literal. The command
// line handed to "do shell script" passes through the scripting layer and
// must be quoted against it, not only against the shell.
func quoteAppleScript(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
