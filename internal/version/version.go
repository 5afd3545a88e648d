// ABOUTME: Version constants for the SonicDeck engine
// ABOUTME: Overridden at release time via -ldflags
package version

var (
	// Version is the engine version, "dev" for untagged builds.
	Version = "dev"

	// Product is the user-facing product name.
	Product = "SonicDeck"

	// Manufacturer identifies the project in device metadata.
	Manufacturer = "SonicDeck Project"
)

// String returns "Product version" for banners and logs.
func String() string {
	return Product + " " + Version
}
