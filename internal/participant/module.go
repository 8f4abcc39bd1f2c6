package participant

import "go.uber.org/fx"

// Module wires the enrichment/membership/unread-counter trio. Directory
// resolves to a BreakerDirectory wrapping NoopDirectory (see
// directory_noop.go) by default; MembershipStore is supplied by
// internal/store/postgres.
var Module = fx.Module("participant",
	fx.Provide(
		NewEnricher,
		NewMembership,
		NewUnreadCounter,
		fx.Annotate(
			func() Directory { return NewBreakerDirectory(NewNoopDirectory()) },
			fx.As(new(Directory)),
		),
	),
)
