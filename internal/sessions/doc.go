// Package sessions persists live intake sessions between API turns.
//
// The daemon uses Redis when redis.url is configured so sessions survive a
// restart and can be shared by several API processes; otherwise sessions live
// in process memory. Both stores expire idle sessions after the configured
// TTL.
package sessions
