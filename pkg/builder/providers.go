package builder

import "fmt"

// Convenience constructors and config options for each of this module's
// 8 reference provider types (pkg/providers), grounded on the teacher's
// per-node-type convenience constructors (pkg/builder/node_transform.go).

// NewHTTPCheck creates an "http" check.
func NewHTTPCheck(id, method, url string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("method", method), WithConfigValue("url", url)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "http", allOpts...)
}

// HTTPBody sets the request body.
func HTTPBody(body any) CheckOption {
	return WithConfigValue("body", body)
}

// HTTPHeaders sets the request headers.
func HTTPHeaders(headers map[string]string) CheckOption {
	return WithConfigValue("headers", headers)
}

// NewCommandCheck creates a "command" check running line.
func NewCommandCheck(id, line string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("run", line)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "command", allOpts...)
}

// CommandWorkdir sets the command's working directory.
func CommandWorkdir(dir string) CheckOption {
	return WithConfigValue("workdir", dir)
}

// CommandEnv sets the command's environment.
func CommandEnv(env map[string]string) CheckOption {
	return WithConfigValue("env", env)
}

// CommandFailOnNonzeroExit toggles whether a nonzero exit code fails the
// check (default true).
func CommandFailOnNonzeroExit(fail bool) CheckOption {
	return WithConfigValue("fail_on_nonzero_exit", fail)
}

// NewExpressionCheck creates a "script" check evaluating an expr-lang
// expression against its dependencies' outputs.
func NewExpressionCheck(id, expression string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("type", "expression"), WithConfigValue("expression", expression)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "script", allOpts...)
}

// NewJQCheck creates a "script" check evaluating a gojq filter against its
// dependencies' outputs.
func NewJQCheck(id, filter string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("type", "jq"), WithConfigValue("filter", filter)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "script", allOpts...)
}

// NewLogCheck creates a "log" check.
func NewLogCheck(id, message string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("message", message)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "log", allOpts...)
}

// LogLevel sets the log level: debug, info, warn, or error.
func LogLevel(level string) CheckOption {
	return func(cb *CheckBuilder) error {
		switch level {
		case "debug", "info", "warn", "error":
			cb.config["level"] = level
			return nil
		default:
			return fmt.Errorf("invalid log level: %s", level)
		}
	}
}

// NewMemorySetCheck creates a "memory" check that stores value under key.
func NewMemorySetCheck(id, key string, value any, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{
		WithConfigValue("op", "set"),
		WithConfigValue("key", key),
		WithConfigValue("value", value),
	}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "memory", allOpts...)
}

// NewMemoryGetCheck creates a "memory" check that reads back key.
func NewMemoryGetCheck(id, key string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("op", "get"), WithConfigValue("key", key)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "memory", allOpts...)
}

// NewHumanInputCheck creates a "human-input" check.
func NewHumanInputCheck(id, message string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("message", message)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "human-input", allOpts...)
}

// NewAICheck creates an "ai" check calling model with prompt.
func NewAICheck(id, model, prompt string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("model", model), WithConfigValue("prompt", prompt)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "ai", allOpts...)
}

// AIAPIKey sets the provider API key.
func AIAPIKey(key string) CheckOption {
	return WithConfigValue("api_key", key)
}

// AIBaseURL overrides the OpenAI-compatible base URL (default
// https://api.openai.com/v1).
func AIBaseURL(url string) CheckOption {
	return WithConfigValue("base_url", url)
}

// AITemperature sets the sampling temperature.
func AITemperature(temp float64) CheckOption {
	return func(cb *CheckBuilder) error {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
		}
		cb.config["temperature"] = temp
		return nil
	}
}

// AIMaxTokens caps the response length.
func AIMaxTokens(n int) CheckOption {
	return WithConfigValue("max_tokens", n)
}

// AIInstruction sets the system-role instruction prepended to the prompt.
func AIInstruction(instruction string) CheckOption {
	return WithConfigValue("instruction", instruction)
}

// NewMCPCheck creates an "mcp" check calling tool on serverURL.
func NewMCPCheck(id, serverURL, tool string, opts ...CheckOption) *CheckBuilder {
	allOpts := []CheckOption{WithConfigValue("server_url", serverURL), WithConfigValue("tool", tool)}
	allOpts = append(allOpts, opts...)
	return NewCheck(id, "mcp", allOpts...)
}

// MCPArguments sets the tool call's arguments.
func MCPArguments(args map[string]any) CheckOption {
	return WithConfigValue("arguments", args)
}

// MCPHeaders sets request headers sent with the tool call.
func MCPHeaders(headers map[string]string) CheckOption {
	return WithConfigValue("headers", headers)
}
