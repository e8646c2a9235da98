package helpers

import (
	"fmt"
	"sort"
	"strings"

	"amx-support-bot/internal/models"
	"amx-support-bot/internal/services"
)

// Response texts reused across the dialog.
const (
	MsgOrderNotFound = "Sorry, I couldn't find that Order ID. Please check and try again."
	MsgProxyNotFound = "Proxy IP not found in the records. Please check and try again."
	MsgDateMissing   = "Order date not available"
)

// FormatOrderDetails renders the validation response for a found order
func FormatOrderDetails(order models.Order, eval services.Evaluation) string {
	var b strings.Builder

	b.WriteString("<b>Order Details:</b>\n")
	fmt.Fprintf(&b, "<b>Name:</b> %s\n", order.Name)
	fmt.Fprintf(&b, "<b>Email:</b> %s\n", order.Email)
	fmt.Fprintf(&b, "<b>Phone Number:</b> %s\n", order.Phone)
	fmt.Fprintf(&b, "<b>IP Given:</b> %s\n", order.IP)
	fmt.Fprintf(&b, "<b>Order Date:</b> %s\n", order.OrderDate)
	fmt.Fprintf(&b, "<b>Total Amount:</b> %s\n", order.TotalAmount.String())
	fmt.Fprintf(&b, "<b>Package:</b> %s\n", order.Package)
	fmt.Fprintf(&b, "<b>Validation Status:</b> %s\n", statusText(eval.State))
	fmt.Fprintf(&b, "<b>Days Left:</b> %d\n", eval.DaysLeft)

	if eval.RenewalSuggested {
		b.WriteString("⚠️ You need to renew to get updated Proxy, as your validation is 5 days or fewer left or expired. Please renew.\n")
	}

	switch {
	case eval.Replacement != nil:
		b.WriteString(FormatEndpoint(*eval.Replacement))
	case eval.NoReplacement:
		b.WriteString("No updated IP information available for your package.")
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatEndpoint renders a replacement endpoint block
func FormatEndpoint(endpoint models.Endpoint) string {
	return fmt.Sprintf("🆕 New Updated IP Details 🆕:\n"+
		"IP: <code>%s</code>\n"+
		"User: <code>%s</code>\n"+
		"Port: <code>%s</code>\n"+
		"Password: <code>%s</code>",
		endpoint.IP, endpoint.User, endpoint.Port.String(), endpoint.Password)
}

// FormatProxyStatus renders a single liveness lookup result
func FormatProxyStatus(addr string, status models.ProxyStatus) string {
	return fmt.Sprintf("Proxy IP <code>%s</code> status: %s", addr, statusMark(status))
}

// FormatProxyOverview renders the whole liveness map, sorted by address
func FormatProxyOverview(statuses map[string]models.ProxyStatus) string {
	if len(statuses) == 0 {
		return "No proxy status records available."
	}

	addrs := make([]string, 0, len(statuses))
	for addr := range statuses {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	var b strings.Builder
	b.WriteString("Proxy Status:\n")
	for _, addr := range addrs {
		fmt.Fprintf(&b, "%s: %s\n", addr, statusMark(statuses[addr]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTranscript renders an audit-channel transcript entry
func FormatTranscript(username, query, response string) string {
	return fmt.Sprintf("<b>User:</b> %s\n<b>Query:</b> <code>%s</code>\n<b>Response:</b>\n%s", username, query, response)
}

// statusText renders a validation state with the original's markers
func statusText(state services.ValidationState) string {
	if state == services.SubscriptionValid {
		return "Valid👌"
	}
	return "Expired⛔"
}

// statusMark renders an up/down marker for a proxy status
func statusMark(status models.ProxyStatus) string {
	if status.Up() {
		return "✅ Up"
	}
	return "❌ Down"
}
