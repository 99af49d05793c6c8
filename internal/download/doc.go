// Package download provides the job engine that turns a reference into a
// finished JobReport.
//
// # Engine
//
// The Engine coordinates a whole job:
//
//  1. Resolve the reference into a single item or a collection
//  2. Dispatch the items sequentially or on a bounded worker pool
//  3. Fetch each item with exponential-backoff retry
//  4. Record every success before its progress tick
//  5. Aggregate the results into a JobReport (failures only)
//
// # Basic Usage
//
//	engine := download.NewEngine(resolver, fetcher, store,
//	    append(download.SettingsOptions(settings),
//	        download.WithLogger(logger),
//	        download.WithProgress(func(event download.ProgressEvent) {
//	            fmt.Println(event.Message)
//	        }),
//	    )...,
//	)
//
//	report, err := engine.Run(ctx, "https://www.youtube.com/playlist?list=...")
//	if err != nil {
//	    // only resolution errors end up here
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d/%d downloaded\n", report.Successful, report.Total)
//
// # Concurrency
//
// Parallel dispatch is used for collections when settings.ParallelDownloads
// is set, with at most settings.MaxParallelDownloads items in flight.
//
// # Retry Logic
//
// Every fetch failure is retried up to settings.MaxRetries times, waiting
// settings.RetryBaseSeconds * 2^(n-1) before retry n.
package download
