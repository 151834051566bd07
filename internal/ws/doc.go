// Package ws implements the WebSocket hub that keeps open editors in sync
// with the project directory.
//
// New(lister, interval) creates a Hub. Hub.Run(ctx) broadcasts the project
// list whenever Notify is called, and every interval as a resync when
// interval is positive. It blocks until ctx is cancelled, then closes all
// active connections. Hub.ServeHTTP upgrades an HTTP connection, sends the
// current list immediately, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "projects",
//	  "data":  ["a.fountain", "b.fountain"]
//	}
//
// The upgrader accepts all origins; the service binds to localhost. The
// endpoint is mounted at /ws/projects.
package ws
