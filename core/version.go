package core

func Version() string {
	// semantic version: 0.x.y
	v := "0.3.0"
	return taggedVersion(v)
}

func taggedVersion(v string) string {
	// set by the release script
	date := "#___202610150000___#"
	tag := date[4 : len(date)-4]

	return v + "-rc." + tag // release candidate
}
