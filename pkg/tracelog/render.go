package tracelog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/fortiblox/svmtrace/pkg/statediff"
	"github.com/fortiblox/svmtrace/pkg/txlog"
)

// ansiPattern matches ANSI escape sequences. On-chain programs can emit
// arbitrary bytes into their log lines; color codes would corrupt the
// append-only file.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripANSI removes ANSI escape sequences from a string.
func StripANSI(s string) string {
	if !strings.ContainsRune(s, '\x1b') {
		return s
	}
	return ansiPattern.ReplaceAllString(s, "")
}

// Render produces the human-readable form of one transaction log. seq is the
// per-process transaction counter value assigned to this transaction.
func Render(seq uint64, log *txlog.TransactionLog) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TX #%d %s %s\n", seq, log.Signature, log.Status.Text())
	fmt.Fprintf(&b, "  fee: %d lamports, compute: %d units\n", log.Fee, log.ComputeUsed)

	for _, ix := range log.Instructions {
		renderInstruction(&b, ix, 1)
	}

	if len(log.ProgramLogs) > 0 {
		b.WriteString("  logs:\n")
		for _, line := range log.ProgramLogs {
			fmt.Fprintf(&b, "    %s\n", StripANSI(line))
		}
	}

	if len(log.AccountStates) > 0 {
		b.WriteString("  accounts:\n")
		byName := make(map[string]statediff.Snapshot, len(log.AccountStates))
		names := make([]string, 0, len(log.AccountStates))
		for key, snap := range log.AccountStates {
			name := key.String()
			byName[name] = snap
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			snap := byName[name]
			fmt.Fprintf(&b, "    %s: lamports %d -> %d, data %d -> %d, owner %s\n",
				name, snap.LamportsBefore, snap.LamportsAfter,
				snap.DataLenBefore, snap.DataLenAfter, snap.Owner)
		}
	}

	return b.String()
}

// renderInstruction renders one instruction node and its subtree. indent is
// the nesting level in the rendered output, starting at 1 for top-level
// instructions.
func renderInstruction(b *strings.Builder, ix *txlog.InstructionLog, indent int) {
	pad := strings.Repeat("  ", indent)

	name := ix.ProgramName
	if ix.Decoded != nil {
		name = fmt.Sprintf("%s: %s", ix.ProgramName, ix.Decoded.Name)
	}
	fmt.Fprintf(b, "%s[%d] %s\n", pad, ix.Index, name)

	for i, acct := range ix.Accounts {
		label := ""
		if ix.Decoded != nil && i < len(ix.Decoded.AccountNames) && ix.Decoded.AccountNames[i] != "" {
			label = ix.Decoded.AccountNames[i] + ": "
		}
		fmt.Fprintf(b, "%s    %s%s%s\n", pad, label, acct.Pubkey, accountFlags(acct.IsSigner, acct.IsWritable))
	}

	if ix.Decoded != nil {
		for _, f := range ix.Decoded.Fields {
			fmt.Fprintf(b, "%s    %s: %s\n", pad, f.Name, f.Value)
		}
	} else if len(ix.Data) > 0 {
		fmt.Fprintf(b, "%s    data: %d bytes\n", pad, len(ix.Data))
	}

	for _, child := range ix.Children {
		renderInstruction(b, child, indent+1)
	}
}

// accountFlags renders the signer/writable suffix.
func accountFlags(signer, writable bool) string {
	switch {
	case signer && writable:
		return " (signer, writable)"
	case signer:
		return " (signer)"
	case writable:
		return " (writable)"
	}
	return ""
}
