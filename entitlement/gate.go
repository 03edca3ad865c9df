package entitlement

import (
	"context"
	"fmt"

	"github.com/open-rails/paykit/lang"
)

// GateDecision is the outcome of a creation-limit check. Message is set
// only on denial and is localized from the request language in ctx.
type GateDecision struct {
	Allowed bool
	Message string
}

type gateMessages struct {
	companies, cashbooks, transactions string
}

var gateByLang = map[string]gateMessages{
	"en": {
		companies:    "You have reached the free limit of %d companies. Upgrade to add more.",
		cashbooks:    "You have reached the free limit of %d cashbooks. Upgrade to add more.",
		transactions: "You have reached the free limit of %d transactions. Upgrade to add more.",
	},
	"es": {
		companies:    "Alcanzaste el límite gratuito de %d empresas. Mejora tu plan para añadir más.",
		cashbooks:    "Alcanzaste el límite gratuito de %d libros de caja. Mejora tu plan para añadir más.",
		transactions: "Alcanzaste el límite gratuito de %d transacciones. Mejora tu plan para añadir más.",
	},
}

func messagesFor(ctx context.Context) gateMessages {
	if code, ok := lang.LanguageFromContext(ctx); ok {
		if m, ok := gateByLang[code]; ok {
			return m
		}
	}
	return gateByLang["en"]
}

// CanCreateCompany reports whether the status permits one more company.
func CanCreateCompany(ctx context.Context, status ResolvedStatus, currentCount int) GateDecision {
	return gate(status.Limits.MaxCompanies, currentCount, messagesFor(ctx).companies)
}

// CanCreateCashbook reports whether the status permits one more cashbook.
func CanCreateCashbook(ctx context.Context, status ResolvedStatus, currentCount int) GateDecision {
	return gate(status.Limits.MaxCashbooks, currentCount, messagesFor(ctx).cashbooks)
}

// CanCreateTransaction reports whether the status permits one more transaction.
func CanCreateTransaction(ctx context.Context, status ResolvedStatus, currentCount int) GateDecision {
	return gate(status.Limits.MaxTransactions, currentCount, messagesFor(ctx).transactions)
}

// gate is a pure comparison; -1 means unlimited.
func gate(limit, current int, denied string) GateDecision {
	if limit < 0 || current < limit {
		return GateDecision{Allowed: true}
	}
	return GateDecision{Allowed: false, Message: fmt.Sprintf(denied, limit)}
}
