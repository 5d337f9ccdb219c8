package gtfs

import (
	"archive/zip"
	"bytes"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

const testShapes = `shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence
A,40.70,-73.99,2
A,40.69,-74.00,1
A,40.71,-73.98,3
B,40.60,-73.90,1
B,40.61,-73.91,2
C,40.50,-73.80,1
D,40.40,-73.70,1
D,40.41,-73.71,2
`

const testTrips = `route_id,service_id,trip_id,shape_id,direction_id,trip_headsign
1,WKD,t1,A,0,DOWNTOWN
1,WKD,t2,A,0,DOWNTOWN
2,WKD,t3,B,1,UPTOWN
2,WKD,t4,,1,UPTOWN
`

// buildArchive zips files in memory, in name order.
func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range slices.Sorted(maps.Keys(files)) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func testFeed(t *testing.T) []byte {
	return buildArchive(t, map[string]string{
		"shapes.txt": testShapes,
		"trips.txt":  testTrips,
	})
}
