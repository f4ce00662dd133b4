package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName identifies this server to MCP clients.
const ServerName = "speech-mcp"

// NewServer builds an MCP server with every tool registered.
func NewServer(version string, handlers *Handlers) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	Register(server, handlers)

	return server
}

// Register adds the speech tools to server.
func Register(server *mcp.Server, handlers *Handlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "text_to_speech",
		Description: "Convert text to speech with a chosen voice and model, " +
			"save the audio file and return its path",
		Annotations: &mcp.ToolAnnotations{Title: "Text to Speech", IdempotentHint: false},
	}, handlers.TextToSpeech)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_sound_effect",
		Description: "Generate a sound effect from a text description and save the audio file",
		Annotations: &mcp.ToolAnnotations{Title: "Sound Effect", IdempotentHint: false},
	}, handlers.SoundEffect)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_voices",
		Description: "List the voices available to the account",
		Annotations: &mcp.ToolAnnotations{Title: "List Voices", ReadOnlyHint: true},
	}, handlers.ListVoices)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_voice",
		Description: "Show the details of one voice",
		Annotations: &mcp.ToolAnnotations{Title: "Get Voice", ReadOnlyHint: true},
	}, handlers.GetVoice)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_models",
		Description: "List the available speech models",
		Annotations: &mcp.ToolAnnotations{Title: "List Models", ReadOnlyHint: true},
	}, handlers.ListModels)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_subscription",
		Description: "Show the account tier and remaining character quota",
		Annotations: &mcp.ToolAnnotations{Title: "Subscription", ReadOnlyHint: true},
	}, handlers.Subscription)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_voice_presets",
		Description: "List the named voice setting presets accepted by text_to_speech",
		Annotations: &mcp.ToolAnnotations{Title: "Voice Presets", ReadOnlyHint: true},
	}, handlers.VoicePresets)
}
