package notify

import (
	"fmt"
	"strings"

	"github.com/WSOL12/pump-migration-tg-alert-bot/internal/domain"
)

// markdownV2Specials are the characters MarkdownV2 requires escaping in
// regular text.
const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes text for inclusion in a MarkdownV2 message body.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 && strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// escapeCode escapes text for a MarkdownV2 inline code span, where only
// backtick and backslash are special.
func escapeCode(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "`", "\\`")
}

// FormatAlert renders a migration event as a MarkdownV2 message. info may
// be nil when enrichment failed or was skipped.
func FormatAlert(event *domain.MigrationEvent, info *domain.TokenInfo) string {
	var b strings.Builder

	b.WriteString("🚀 *Pump\\.fun migration detected*\n\n")

	if info != nil && (info.Name != "" || info.Symbol != "") {
		name := info.Name
		if name == "" {
			name = info.Symbol
		}
		b.WriteString(fmt.Sprintf("*Token:* %s", EscapeMarkdownV2(name)))
		if info.Symbol != "" && info.Symbol != name {
			b.WriteString(fmt.Sprintf(" \\(%s\\)", EscapeMarkdownV2(info.Symbol)))
		}
		b.WriteString("\n")
	}

	if event.Unresolved || event.TokenMint == "" {
		b.WriteString("*Mint:* unknown\n")
	} else {
		b.WriteString(fmt.Sprintf("*Mint:* `%s`\n", escapeCode(event.TokenMint)))
	}
	if event.Pool != "" {
		b.WriteString(fmt.Sprintf("*Pool:* `%s`\n", escapeCode(event.Pool)))
	}
	if event.Slot > 0 {
		b.WriteString(fmt.Sprintf("*Slot:* %d\n", event.Slot))
	}
	if event.ValueSOL > 0 {
		b.WriteString(fmt.Sprintf("*Value:* %s SOL\n", EscapeMarkdownV2(formatAmount(event.ValueSOL))))
	}

	if info != nil {
		if info.PriceUSD > 0 {
			b.WriteString(fmt.Sprintf("*Price:* $%s\n", EscapeMarkdownV2(formatPrice(info.PriceUSD))))
		}
		if info.LiquidityUSD > 0 {
			b.WriteString(fmt.Sprintf("*Liquidity:* $%s\n", EscapeMarkdownV2(formatAmount(info.LiquidityUSD))))
		}
		if info.MarketCapUSD > 0 {
			b.WriteString(fmt.Sprintf("*Market cap:* $%s\n", EscapeMarkdownV2(formatAmount(info.MarketCapUSD))))
		}
	}

	if event.TxURL != "" {
		b.WriteString(fmt.Sprintf("\n[View transaction](%s)", event.TxURL))
	}

	return b.String()
}

// formatAmount trims trailing zeros from a fixed two-decimal rendering.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// formatPrice keeps more precision for small token prices.
func formatPrice(v float64) string {
	var s string
	if v < 0.01 {
		s = fmt.Sprintf("%.8f", v)
	} else {
		s = fmt.Sprintf("%.4f", v)
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
