// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: debug.go — Alloc-free stderr drops for cold diagnostics
//
// Purpose:
//   - Logs infrequent failure and status paths without heap pressure.
//   - Used only off the hot loops: arena setup, store errors, run verdicts.
//
// Notes:
//   - Avoids fmt to keep footprint and latency flat.
//   - Builds the line with plain concatenation and writes fd 2 directly.
//
// ⚠️ Never invoke between exchange attempts — drops are for the edges.
// ─────────────────────────────────────────────────────────────────────────────

package debug

import "github.com/pemensik/tagptr/utils"

// DropError writes "prefix: error" to stderr without allocating beyond the
// joined line itself. A nil err drops the bare prefix, which doubles as a
// tagged status marker.
//
//go:nosplit
//go:inline
//go:registerparams
func DropError(prefix string, err error) {
	if err != nil {
		msg := prefix + ": " + err.Error() + "\n"
		utils.PrintWarning(msg)
	} else {
		msg := prefix + "\n"
		utils.PrintWarning(msg)
	}
}

// DropMessage writes "prefix: message" to stderr. Status lines from the
// run driver and the stores come through here so a lab binary never pulls
// a logging framework into the same process as the spin loops.
//
//go:nosplit
//go:inline
//go:registerparams
func DropMessage(prefix, message string) {
	msg := prefix + ": " + message + "\n"
	utils.PrintWarning(msg)
}
