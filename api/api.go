// Package api встраивает OpenAPI-описание CRUD-сервиса для Swagger UI.
package api

import _ "embed"

//go:embed openapi.json
var OpenAPISpec []byte
