package main

import "github.com/killallgit/media-transcript-api/cmd"

// @title           Media Transcript API
// @version         1.0.0
// @description     Turns YouTube videos and uploaded mp4 files into multilingual timed transcripts and serves the stored results
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/media-transcript-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:8080
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
