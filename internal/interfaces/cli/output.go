package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/lite-lake/infra-regsync/internal/domain"
	"github.com/lite-lake/infra-regsync/internal/domain/entity"
)

const (
	OutputText = "text"
	OutputYAML = "yaml"
	OutputJSON = "json"
)

var titleCaser = cases.Title(language.English)

// title turns "pending-registrant" into "Pending Registrant".
func title(s string) string {
	return titleCaser.String(strings.NewReplacer("-", " ", "_", " ").Replace(s))
}

// render writes v as YAML or JSON when --output asks for it, otherwise runs
// the human-readable printer.
func (c *Context) render(v any, text func(w io.Writer)) error {
	switch strings.ToLower(c.Output) {
	case "", OutputText:
		text(c.Out)
		return nil
	case OutputYAML:
		enc := yaml.NewEncoder(c.Out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case OutputJSON:
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return fmt.Errorf("%w: output format %q", domain.ErrInvalidType, c.Output)
}

func printField(w io.Writer, label, value string) {
	if value == "" {
		value = NoopStyle.Render("-")
	}
	fmt.Fprintf(w, "%s %s\n", LabelStyle.Render(label), value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func printDomainRecord(w io.Writer, rec *entity.DomainRecord, lockedStatuses entity.StatusSet) {
	fmt.Fprintln(w, TitleStyle.Render(rec.Name))
	printField(w, "ID", rec.ID)
	printField(w, "Status", strings.Join(rec.Statuses, ", "))
	locked := "no"
	if rec.Locked(lockedStatuses) {
		locked = "yes"
	}
	printField(w, "Locked", locked)
	for _, role := range entity.AllContactRoles {
		printField(w, title(string(role)), rec.ContactID(role))
	}
	for i, ns := range rec.Nameservers {
		value := ns.Host
		if ns.IP != "" {
			value += " (" + ns.IP + ")"
		}
		printField(w, fmt.Sprintf("NS%d", i+1), value)
	}
	printField(w, "Created", formatTime(rec.CreatedAt))
	printField(w, "Updated", formatTime(rec.UpdatedAt))
	printField(w, "Expires", formatTime(rec.ExpiresAt))
}

func printContact(w io.Writer, c *entity.ContactRecord) {
	fmt.Fprintln(w, TitleStyle.Render(c.ID))
	printField(w, "Name", c.Name)
	printField(w, "Organisation", c.Organisation)
	printField(w, "Email", c.Email)
	printField(w, "Phone", c.Phone)
	address := strings.Join(nonEmpty(c.Address1, c.Address2, c.Address3, c.PostCode+" "+c.City, c.State), ", ")
	printField(w, "Address", address)
	printField(w, "Country", c.Country)
}

func printTransferStatus(w io.Writer, st *entity.TransferStatus) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render(st.Domain), transferStateStyle(st.State).Render(title(string(st.State))))
	if st.Order != nil {
		printField(w, "Order", st.Order.ID)
		printField(w, "Order status", title(string(st.Order.Status)))
		printField(w, "Submitted", formatTime(st.Order.SubmittedAt))
	}
	if st.PendingFor > 0 {
		printField(w, "Pending for", st.PendingFor.String())
	}
	printField(w, "Message", st.Message)
}

func printNotification(w io.Writer, n entity.Notification) {
	fmt.Fprintf(w, "%s %-8s %s %s %s\n",
		NoopStyle.Render(formatTime(n.Time)),
		n.ID,
		notificationStyle(n.Type).Render(fmt.Sprintf("%-12s", n.Type)),
		strings.Join(n.Domains, ","),
		n.Message)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
