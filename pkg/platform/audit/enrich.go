package audit

import (
	"context"

	"github.com/mssola/useragent"

	"kycgate/pkg/requestcontext"
)

// EnrichFromContext fills request-scoped fields (request ID, client IP,
// parsed user agent) onto an entry before it is emitted.
func EnrichFromContext(ctx context.Context, e *Entry) {
	e.RequestID = requestcontext.RequestID(ctx)
	e.ClientIP = requestcontext.ClientIP(ctx)
	e.UserAgent = requestcontext.UserAgent(ctx)

	if e.UserAgent != "" {
		ua := useragent.New(e.UserAgent)
		name, version := ua.Browser()
		if name != "" {
			e.Browser = name
			if version != "" {
				e.Browser += " " + version
			}
		}
		e.OS = ua.OS()
	}
}
