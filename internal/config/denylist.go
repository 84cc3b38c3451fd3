package config

// DefaultBlocklist returns the hostnames seeded into a fresh database's
// blocklist. Sign-in flows and credential vaults are pass-through pages,
// so time spent on them is never attributed.
func DefaultBlocklist() []string {
	return []string{
		// Authentication & Identity
		"accounts.google.com",
		"login.microsoftonline.com",
		"login.live.com",
		"appleid.apple.com",
		"auth0.com",
		"*.okta.com",
		"*.onelogin.com",
		"login.gov",
		"id.me",

		// Password Managers
		"1password.com",
		"vault.bitwarden.com",
		"lastpass.com",
		"app.dashlane.com",
	}
}
