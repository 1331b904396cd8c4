// Package httpclient issues the individual requests of a load run.
//
// An [Issuer] turns one call to [Issuer.Issue] into exactly one request
// attempt against the configured target and returns its
// [metrics.Outcome]. Each attempt gets a freshly randomized header set from a
// [HeaderGenerator], an optional payload from a [PayloadPicker], and a client
// from a per-proxy [pool.ClientPool]:
//
//	headers, err := httpclient.NewHeaderGenerator(cfg.UserAgents, cfg.Headers, cfg.Stealth)
//	issuer, err := httpclient.NewIssuer(httpclient.IssuerOptions{
//		Target:   cfg.TargetURL,
//		Method:   cfg.Method,
//		Headers:  headers,
//		Payloads: httpclient.NewPayloadPicker(cfg.Payloads),
//		Clients:  clients,
//	})
//	outcome := issuer.Issue(ctx)
//
// Transport failures never escape as errors. They are folded into the
// outcome with a short error kind from [ClassifyError].
//
// [pool.ClientPool]: github.com/torosent/httpstorm/internal/pool.ClientPool
package httpclient
