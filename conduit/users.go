package conduit

// UserKeys lists the fixed test users in setup order.
var UserKeys = []string{"uk", "us"}

// TestUsers returns the fixed users keyed by market, all sharing password.
func TestUsers(password string) map[string]UserCredentials {
	return map[string]UserCredentials{
		"uk": {Username: "ukUser", Email: "ukUser@test.com", Password: password},
		"us": {Username: "usUser", Email: "usUser@tets.com", Password: password},
	}
}
