package strategies

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/gokaycavdar/go-geogate/pkg/cidr"
	"github.com/gokaycavdar/go-geogate/pkg/geoapi"
	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// Remote lookup outcomes reported to OnOutcome.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

// RemoteAPIResolver asks external geolocation services in priority order.
//
// A failing service is not retried; the next one in the list is asked
// instead. If every service fails the verdict is Unknown and the joined
// failures are returned for logging.
type RemoteAPIResolver struct {
	Country  string
	Services []geoapi.Service
	Timeout  time.Duration // Per service call

	// OnOutcome, when set, is called once per service call.
	OnOutcome func(service, outcome string)
}

// NewRemoteAPIResolver creates a resolver over services, tried in order.
func NewRemoteAPIResolver(country string, timeout time.Duration, services ...geoapi.Service) *RemoteAPIResolver {
	if timeout <= 0 {
		timeout = geoapi.DefaultTimeout
	}
	return &RemoteAPIResolver{
		Country:  normalizeCountry(country),
		Services: services,
		Timeout:  timeout,
	}
}

func (r *RemoteAPIResolver) Name() string {
	return NameRemoteAPI
}

func (r *RemoteAPIResolver) Resolve(ctx context.Context, visitor models.Visitor) (models.Verdict, error) {
	// Never put something that is not an address into a third-party URL.
	addr, err := cidr.ParseAddr(visitor.IPAddress)
	if err != nil {
		return models.Unknown, nil
	}
	ip := addr.String()

	var errs error
	for _, svc := range r.Services {
		verdict, err := r.ask(ctx, svc, ip)
		if err != nil {
			log.Debug("geolocation service failed", "service", svc.Name(), "ip", ip, "error", err)
			r.report(svc.Name(), OutcomeError)
			errs = multierr.Append(errs, err)
			continue
		}

		if verdict == models.Match {
			r.report(svc.Name(), OutcomeMatch)
		} else {
			r.report(svc.Name(), OutcomeNoMatch)
		}
		return verdict, nil
	}

	return models.Unknown, errs
}

func (r *RemoteAPIResolver) ask(ctx context.Context, svc geoapi.Service, ip string) (models.Verdict, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	code, err := svc.Lookup(callCtx, ip)
	if err != nil {
		return models.Unknown, err
	}
	return models.VerdictOf(strings.EqualFold(strings.TrimSpace(code), r.Country)), nil
}

func (r *RemoteAPIResolver) report(service, outcome string) {
	if r.OnOutcome != nil {
		r.OnOutcome(service, outcome)
	}
}
