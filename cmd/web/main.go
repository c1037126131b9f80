package main

import "metallvector_backend/internal/app"

func main() {
	app.Run()
}
