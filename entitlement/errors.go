package entitlement

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes leaf-client failures so callers can branch on the
// kind instead of driving fallback through panic/recover or string matching.
type ErrorKind int

const (
	// KindUnknown covers errors produced outside this package.
	KindUnknown ErrorKind = iota
	// KindTransport: the record store or billing API is unreachable.
	KindTransport
	// KindCredentialConflict: the store rejected the call's credential
	// mode; callers retry on the alternate mode before surfacing this.
	KindCredentialConflict
	// KindNotConfigured: the billing client has no credentials.
	KindNotConfigured
	// KindDataAnomaly: the store returned something structurally off, such
	// as multiple records for one subject.
	KindDataAnomaly
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindCredentialConflict:
		return "credential_conflict"
	case KindNotConfigured:
		return "not_configured"
	case KindDataAnomaly:
		return "data_anomaly"
	}
	return "unknown"
}

// Fault is a typed leaf-client failure.
type Fault struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "records.find"
	Err  error  // underlying cause, may be nil
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Kind)
}

func (f *Fault) Unwrap() error { return f.Err }

// NewFault wraps err with a kind and operation name.
func NewFault(kind ErrorKind, op string, err error) *Fault {
	return &Fault{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the ErrorKind from err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}
