// Package watcher reports changes to the set of project files in a directory.
//
// Watch(ctx, dir, ext, debounce, onChange) uses fsnotify on the directory and
// coalesces bursts of create/write/remove/rename events for names ending in
// ext into a single onChange call, fired once the directory has been quiet
// for the debounce period.
package watcher
