// ABOUTME: Version information for audiostream
// ABOUTME: Reported by the bridge in server/hello and printed by the commands
package version

const (
	// Version is the software version
	Version = "0.3.0"

	// Product is the product name
	Product = "audiostream"

	// Manufacturer identifies the maintainer
	Manufacturer = "audiostream-go"
)

// String returns "product version", as printed by -version
func String() string {
	return Product + " " + Version
}
