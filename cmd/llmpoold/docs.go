package main

// Swagger general info. Regenerate docs/ with:
//
//	swag init -g cmd/llmpoold/docs.go --parseInternal -o docs
//
// then build with -tags=swagger to serve /swagger/.
//
// @title           llmpoold control API
// @version         1.0
// @description     Manages isolated LLM workers and routes generation requests to them.
//
// @tag.name        workers
// @tag.description Worker lifecycle and generation
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
// @schemes   http
