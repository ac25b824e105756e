// Package classify holds the pure core of the sentiment pipeline: prompt
// construction, reply normalization, and the request and result types shared
// by the cache, scheduler, and provider clients. Nothing here performs
// network I/O.
package classify
