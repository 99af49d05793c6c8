// Package model defines the core data structures shared by the resolver,
// the dispatch engine and the recorders.
//
// # Work Items
//
// WorkItem represents a single fetchable unit resolved from a reference:
//
//	item := model.WorkItem{ID: url, Title: "Song", Index: 1, Collection: "Mix"}
//	fmt.Println(item.Label())             // "01 - Song"
//	fmt.Println(item.OutputDir("/music")) // "/music/Mix"
//
// # Outcomes
//
// FetchOutcome is a tagged Success/Failure value. Build it with Succeeded or
// Failed and branch on OK():
//
//	outcome := model.Failed(model.KindTransient, "timeout")
//	if !outcome.OK() {
//	    log.Println(outcome.Message)
//	}
//
// # Reports
//
// JobReport is produced once at the end of a run. It holds the total and
// successful counts and the full ItemResult for failed items only.
package model
