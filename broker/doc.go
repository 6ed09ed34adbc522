// Package broker hands planned run directories to an execution backend.
//
// Two brokers are provided. The pegasus broker shells out to a local
// pegasus-plan install and submits the run in the same call. The portal
// broker queues a hosted planning tool through the submit command so the
// run executes on a community cluster instead. Both probe run progress
// through marker files the backend leaves in the run directory; neither
// talks to the backend's own databases.
package broker
