package server

//go:generate swag init -g internal/server/swagger.go -o docs/swagger

// @title Observer API
// @version 0.1
// @description Trigger observation pipeline runs and read snapshots, diffs, analyses and run history.
// @contact.name Observer Maintainers
// @contact.url https://github.com/raysh454/observer
// @BasePath /
