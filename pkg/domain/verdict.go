package domain

import dErrors "kycgate/pkg/domain-errors"

// Verdict is the tri-state outcome attached to a document at any workflow
// stage: approve it, reject it, or escalate it to a higher authority.
type Verdict string

const (
	VerdictApproved Verdict = "APPROVED"
	VerdictRejected Verdict = "REJECTED"
	VerdictEscalate Verdict = "ESCALATE"
)

var validVerdicts = map[Verdict]bool{
	VerdictApproved: true,
	VerdictRejected: true,
	VerdictEscalate: true,
}

// ParseVerdict constructs a Verdict from external input (typically classifier
// output that already passed structured parsing).
func ParseVerdict(s string) (Verdict, error) {
	v := Verdict(s)
	if !v.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid verdict: "+s)
	}
	return v, nil
}

// IsValid checks if the verdict is one of the supported enum values.
func (v Verdict) IsValid() bool {
	return validVerdicts[v]
}

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	return string(v)
}

// OfficerAction is the maker half of the maker-checker control.
type OfficerAction string

const (
	OfficerAgree    OfficerAction = "AGREE"
	OfficerDisagree OfficerAction = "DISAGREE"
)

// ParseOfficerAction constructs an OfficerAction from external input.
func ParseOfficerAction(s string) (OfficerAction, error) {
	a := OfficerAction(s)
	if a != OfficerAgree && a != OfficerDisagree {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid officer action: "+s)
	}
	return a, nil
}

// ManagerAction is the checker half of the maker-checker control.
type ManagerAction string

const (
	ManagerApprove  ManagerAction = "APPROVE"
	ManagerReject   ManagerAction = "REJECT"
	ManagerEscalate ManagerAction = "ESCALATE"
)

// ParseManagerAction constructs a ManagerAction from external input.
func ParseManagerAction(s string) (ManagerAction, error) {
	a := ManagerAction(s)
	if a != ManagerApprove && a != ManagerReject && a != ManagerEscalate {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid manager action: "+s)
	}
	return a, nil
}
