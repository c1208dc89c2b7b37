package compliance

import (
	"fmt"
	"strings"
	"time"
)

// RenderReport formats a compliance report as markdown for export. The
// layout is stable so downstream tooling can diff consecutive reports.
func RenderReport(report *Report) string {
	var b strings.Builder

	b.WriteString("# DPDP Compliance Report\n\n")
	fmt.Fprintf(&b, "**Overall Compliance Score:** %d%%\n\n", report.OverallCompliance)
	fmt.Fprintf(&b, "**Report Generated:** %s\n\n", report.LastAudit.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Next Audit Due:** %s\n\n", report.NextAuditDue.UTC().Format(time.RFC3339))

	b.WriteString("## Access Control Matrix\n\n")
	for _, entry := range report.AccessMatrix {
		fmt.Fprintf(&b, "### %s\n", entry.Role)
		fmt.Fprintf(&b, "- **Data Scope:** %s\n", entry.DataScope)
		fmt.Fprintf(&b, "- **Audit Required:** %t\n", entry.AuditRequired)
		b.WriteString("- **Restrictions:**\n")
		for _, restriction := range entry.Restrictions {
			fmt.Fprintf(&b, "  - %s\n", restriction)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Compliance Violations\n\n")
	if len(report.Violations) == 0 {
		b.WriteString("No violations detected.\n\n")
	} else {
		for _, v := range report.Violations {
			fmt.Fprintf(&b, "### %s - %s\n", v.Type, v.Severity)
			fmt.Fprintf(&b, "- **Resource:** %s\n", v.Resource)
			fmt.Fprintf(&b, "- **Description:** %s\n", v.Description)
			fmt.Fprintf(&b, "- **Remediation:** %s\n", v.Remediation)
			fmt.Fprintf(&b, "- **Status:** %s\n\n", v.Status)
		}
	}

	b.WriteString("## Recommendations\n\n")
	for _, recommendation := range report.Recommendations {
		fmt.Fprintf(&b, "- %s\n", recommendation)
	}

	return b.String()
}
