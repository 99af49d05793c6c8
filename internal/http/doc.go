// Package http provides the connectivity checks behind the -check flag.
//
// # Basic Usage
//
//	client := http.NewClient(http.WithTimeout(5 * time.Second))
//	for _, r := range client.ProbeAll(ctx, http.DefaultProbeTargets) {
//	    fmt.Println(r)
//	}
//
// Probe uses HEAD requests and follows redirects; any status below 400
// counts as reachable.
package http
