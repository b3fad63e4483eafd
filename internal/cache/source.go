package cache

import "context"

// StaticSource is an ItemMetadataSource backed by a fixed map, used by
// tests and by deployments that have no separate host-inventory service.
type StaticSource struct {
	items map[string]ItemMetadata
}

// NewStaticSource builds a StaticSource from a host-id-keyed map.
func NewStaticSource(items map[string]ItemMetadata) *StaticSource {
	return &StaticSource{items: items}
}

// ItemMetadata implements ItemMetadataSource.
func (s *StaticSource) ItemMetadata(ctx context.Context, hostID string) (ItemMetadata, error) {
	meta, ok := s.items[hostID]
	if !ok {
		return ItemMetadata{HostID: hostID}, nil
	}
	return meta, nil
}
