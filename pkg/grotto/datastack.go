package grotto

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DatastackInfo is the resolved configuration of a datastack: which
// segmentation table, aligned volume, and viewer site back it.
type DatastackInfo struct {
	Datastack         string
	SegmentationTable string
	AlignedVolume     string
	ViewerSite        string
}

type infoAPI interface {
	GetJSON(ctx context.Context, path string, query url.Values, v any) error
}

// fetchDatastackInfo resolves a datastack name through the info service.
func fetchDatastackInfo(ctx context.Context, api infoAPI, datastack string) (*DatastackInfo, error) {
	var raw struct {
		SegmentationSource string `json:"segmentation_source"`
		AlignedVolume      struct {
			Name string `json:"name"`
		} `json:"aligned_volume"`
		ViewerSite string `json:"viewer_site"`
	}

	path := fmt.Sprintf("/info/api/v2/datastack/full/%s", datastack)
	if err := api.GetJSON(ctx, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("resolve datastack %s: %w", datastack, err)
	}

	table, err := tableFromSource(raw.SegmentationSource)
	if err != nil {
		return nil, fmt.Errorf("resolve datastack %s: %w", datastack, err)
	}

	return &DatastackInfo{
		Datastack:         datastack,
		SegmentationTable: table,
		AlignedVolume:     raw.AlignedVolume.Name,
		ViewerSite:        raw.ViewerSite,
	}, nil
}

// tableFromSource extracts the table name from a segmentation source like
// "graphene://https://data.example.org/segmentation/table/minnie3_v1".
func tableFromSource(source string) (string, error) {
	trimmed := strings.TrimSuffix(source, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 || i == len(trimmed)-1 {
		return "", fmt.Errorf("segmentation source %q has no table segment", source)
	}
	return trimmed[i+1:], nil
}
