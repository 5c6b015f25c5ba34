package session

// State is the session lifecycle tag.
//
// Transitions:
//
//	Bootstrapping -> Authenticated | Anonymous        (process start)
//	Anonymous     -> Authenticating                   (SubmitCredentials)
//	Authenticating -> Authenticated | PendingTwoFactor | Anonymous
//	PendingTwoFactor -> Authenticated | Anonymous
//	Authenticated -> Refreshing -> Authenticated      (token refresh)
//	Authenticated | PendingTwoFactor | Refreshing -> Anonymous (logout, invalidation)
//
// Anonymous ends a session but not the manager: a new login starts the next
// cycle.
type State string

const (
	StateBootstrapping    State = "bootstrapping"
	StateAnonymous        State = "anonymous"
	StateAuthenticating   State = "authenticating"
	StatePendingTwoFactor State = "pending_two_factor"
	StateAuthenticated    State = "authenticated"
	StateRefreshing       State = "refreshing"
)

// Recorder receives the manager's lifecycle events for metrics. The
// internal/metrics package provides a Prometheus-backed implementation.
type Recorder interface {
	RecordLogin(outcome string)
	RecordSecondFactor(outcome string)
	RecordRefresh(outcome string)
	RecordRefreshWaiter()
	RecordInvalidation(reason string)
	RecordShopSwitch()
}

// Outcome labels reported through the Recorder.
const (
	OutcomeSuccess           = "success"
	OutcomeRejected          = "rejected"
	OutcomeNetworkError      = "network_error"
	OutcomeStepUp            = "second_factor_required"
	OutcomeMissingRefresh    = "missing_refresh_token"
	OutcomeSessionSuperseded = "session_superseded"
)

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string)        {}
func (nopRecorder) RecordSecondFactor(string) {}
func (nopRecorder) RecordRefresh(string)      {}
func (nopRecorder) RecordRefreshWaiter()      {}
func (nopRecorder) RecordInvalidation(string) {}
func (nopRecorder) RecordShopSwitch()         {}
