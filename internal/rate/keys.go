package rate

func loginUserKey(username string) string {
	return "al:" + username
}

func loginIPKey(ip string) string {
	return "ali:" + ip
}

func refreshKey(familyID string) string {
	return "alr:" + familyID
}
