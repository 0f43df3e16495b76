// Package notifier renders signal batches and delivers them to chat.
package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/orb-scanner/internal/models"
	"github.com/yourusername/orb-scanner/internal/strategy"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// FormatMessage renders the Markdown message for a batch of signals.
// window is the opening window label, e.g. 09:15–09:30.
func FormatMessage(signals []models.Signal, now time.Time, window string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Opening Range Strategy (%s)*\n\n", window)

	if len(signals) == 0 {
		b.WriteString("No trading signals generated for today.")
		return b.String()
	}

	fmt.Fprintf(&b, "📅 Date: %s\n", now.Format("02-Jan-2006"))
	fmt.Fprintf(&b, "🕒 Time: %s\n\n", now.Format("15:04"))

	var buys, sells []models.Signal
	for _, s := range signals {
		switch s.Direction {
		case models.DirectionBuy:
			buys = append(buys, s)
		case models.DirectionSell:
			sells = append(sells, s)
		}
	}

	writeSection(&b, "🟢 *BUY CALLS*", buys, "CALL")
	writeSection(&b, "🔴 *BUY PUTS*", sells, "PUT")

	if len(buys) == 0 && len(sells) == 0 {
		b.WriteString("⚪ No actionable trades today.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, title string, signals []models.Signal, kind string) {
	if len(signals) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, s := range signals {
		name := strategy.DisplaySymbol(s.Symbol)
		action := s.SuggestedAction
		if action == "" {
			action = fmt.Sprintf("BUY %s %s", name, kind)
		}
		fmt.Fprintf(b, "• %s - %s (ORH %s / ORL %s, LTP %s)\n",
			markdownEscaper.Replace(name),
			markdownEscaper.Replace(action),
			formatPrice(s.High), formatPrice(s.Low), formatPrice(s.Price))
	}
	b.WriteString("\n")
}
