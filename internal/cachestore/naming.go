package cachestore

import "strings"

// Partition name prefixes. Every partition name embeds the generation tag
// so activation can delete everything outside the current generation's
// triple in one pass.
const (
	legacyPrefix  = "vendora-"
	staticPrefix  = "vendora-static-"
	dynamicPrefix = "vendora-dynamic-"
)

// offlineSlotPrefix namespaces offline-data slots, mirroring the path
// template the front-end uses for its offline-data convention.
const offlineSlotPrefix = "/offline-data/"

// PartitionSet is the named partition triple for one generation.
type PartitionSet struct {
	Tag     string
	Legacy  string
	Static  string
	Dynamic string
}

// Partitions returns the partition triple for a generation tag.
func Partitions(tag string) PartitionSet {
	return PartitionSet{
		Tag:     tag,
		Legacy:  legacyPrefix + tag,
		Static:  staticPrefix + tag,
		Dynamic: dynamicPrefix + tag,
	}
}

// Names returns the triple as the keep-set used during activation.
func (p PartitionSet) Names() []string {
	return []string{p.Legacy, p.Static, p.Dynamic}
}

// SlotName builds the offline-data slot key for a logical name.
func SlotName(name string) string {
	return offlineSlotPrefix + name
}

// SlotLogicalName extracts the logical name from a slot key, or "" if the
// key is not an offline-data slot.
func SlotLogicalName(slot string) string {
	if !strings.HasPrefix(slot, offlineSlotPrefix) {
		return ""
	}
	return strings.TrimPrefix(slot, offlineSlotPrefix)
}
