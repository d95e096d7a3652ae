package governance

import (
	"fmt"

	"github.com/stake-plus/solana-dao-radar/src/splgov"
)

var displayLabels = map[splgov.ProposalState]string{
	splgov.ProposalSigningOff:          "Signing Off",
	splgov.ProposalVoting:              "Active",
	splgov.ProposalExecutingWithErrors: "Executing (Errors)",
}

// DisplayLabel is the user-facing name of a state.
func DisplayLabel(s splgov.ProposalState) string {
	if l, ok := displayLabels[s]; ok {
		return l
	}
	return s.Label()
}

// ShortenAddress keeps chars characters at each end of an address.
func ShortenAddress(addr string, chars int) string {
	if chars <= 0 {
		chars = 4
	}
	if len(addr) <= 2*chars {
		return addr
	}
	return addr[:chars] + "..." + addr[len(addr)-chars:]
}

// FormatCompact renders 1234 as 1.2K and 2500000 as 2.5M.
func FormatCompact(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	}
	return fmt.Sprintf("%.0f", n)
}
