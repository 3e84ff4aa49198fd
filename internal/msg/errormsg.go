package msg

// flash
const (
	// MissingFlashSource asks for a build to flash.
	MissingFlashSource = "Try ezboot with flash with --flash_url or --flash_device options. Or try ezboot flash --help for more details."
	// UnknownDeviceURL prompts for a build URL of an unknown device.
	UnknownDeviceURL = `We don't have a URL to fetch latest build for device "%s". Please provide a URL to get a build for flashing your device:`
	// MissingCredentials indicates that build server credentials are needed but cannot be asked for.
	MissingCredentials = "no credentials for the build server: use --flash_user and --flash_pass"
	// NoBuildInfo indicates that the build metadata could not be read.
	NoBuildInfo = "could not get build info"
)

// setup
const (
	// MissingWifiOptions indicates an incomplete Wi-Fi configuration.
	MissingWifiOptions = "Missing --wifi_key or --wifi_pass option"
	// DesktopB2GRunning hints at a common restart failure.
	DesktopB2GRunning = "Check to make sure you don't have desktop B2G running"
)

// install
const (
	// MissingInstallSource asks for something to install.
	MissingInstallSource = "Provide either app name (using --app), URL of app's manifest file (using --manifest) or URL of the app on marketplace (using --app_url)."
	// MissingMarketplaceEnv asks which marketplace to install.
	MissingMarketplaceEnv = "Provide which version of marketplace you want to install. For example, --dev."
	// MissingCertsEnv asks which certificates to install.
	MissingCertsEnv = "Provide which version of dev certs you want to install. For example, --dev."
	// MissingCertsPath asks for the certificate directory.
	MissingCertsPath = "--certs_path is required"
)

// login
const (
	// NoLoginPrompt explains that there is nothing to log in to.
	NoLoginPrompt = "Persona email input is not present. Are you on a new login screen?"
)

// install failures
const (
	// NoInternet explains an installation that never started.
	NoInternet = "Unable to download app.\nReason: You are probably not connected to internet on your device."
	// MarketplaceMissing explains how to get the marketplace app.
	MarketplaceMissing = "Marketplace Dev app is not installed. Install it using install_mkt --dev or use --browser to install apps from the browser directly."
	// AppNotFound is reported for marketplace searches without results.
	AppNotFound = "App not found."
)
