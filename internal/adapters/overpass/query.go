package overpass

import (
	"fmt"
	"strconv"
	"strings"

	"ambulance_app/internal/domain"
)

// serverTimeoutSeconds is the [timeout:N] budget asked of the Overpass server.
const serverTimeoutSeconds = 25

var geometries = []string{"node", "way"}

// BuildQuery renders an Overpass QL query selecting every filter as both a
// node and a way within the radius, returning way centers.
func BuildQuery(q domain.ProviderQuery) string {
	lat := strconv.FormatFloat(q.Origin.Lat, 'f', -1, 64)
	lon := strconv.FormatFloat(q.Origin.Lon, 'f', -1, 64)

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];(", serverTimeoutSeconds)
	for _, f := range q.Filters {
		for _, g := range geometries {
			fmt.Fprintf(&b, `%s[%s=%s](around:%d,%s,%s);`,
				g, quote(f.Key), quote(f.Value), q.RadiusMeters, lat, lon)
		}
	}
	b.WriteString(");out center;")
	return b.String()
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}
