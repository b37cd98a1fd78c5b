// Package ids generates entity identifiers. KSUIDs sort by creation time,
// which keeps "newest first" orderings stable when timestamps collide.
package ids

import "github.com/segmentio/ksuid"

func New() string {
	return ksuid.New().String()
}

func Valid(id string) bool {
	_, err := ksuid.Parse(id)
	return err == nil
}
