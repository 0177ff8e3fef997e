// Package orchestrator drives the jobs of a pipeline run through a
// compiled execution plan to a terminal state.
//
// Two interchangeable strategies implement the same contract. The
// synchronous orchestrator executes ready jobs inline in the caller's
// goroutine and blocks until the pipeline finishes, which suits tests and
// small runs. The asynchronous orchestrator enqueues ready jobs onto a
// durable work queue and lets a pool of workers pull and execute them;
// each completion re-evaluates the dependency graph and fans out newly
// ready jobs, which is what moves the DAG forward.
//
// Job failures are classified into a RetryDecision (requeue, suspend, or
// continue) rather than signalled through error types: transient failures
// are requeued with exponential backoff until the retry budget runs out,
// permanent ones suspend the failed job's dependents while independent
// branches keep running.
package orchestrator
