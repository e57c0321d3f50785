// Package digest sends the nightly unfinished-task email and cleans up past
// day buckets.
//
// The scheduler arms a single one-shot timer for the next local midnight.
// When it fires, the timer is re-armed for the following midnight before any
// work runs, so a failure inside one run can never stop future runs. The
// nightly run reports every bucket except today's and then removes the past
// buckets whether or not the mail went out. An on-demand run includes today
// and removes nothing.
package digest
