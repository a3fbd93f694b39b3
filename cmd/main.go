// cmd/main.go
package main

import (
	"go-school-api/app"

	_ "go-school-api/docs"
)

// @title           School Platform API
// @version         1.0
// @description     Authentication and session management for the school platform.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app.Run()
}
