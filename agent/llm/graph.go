package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// Both graphs take the system prompt as a variable so tenant text containing
// braces is never parsed as a template.
const systemPromptVar = "{system_prompt}"

func compileClassifyGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	userTemplate string,
) (compose.Runnable[map[string]any, classificationLLMOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPromptVar),
		schema.UserMessage(userTemplate),
	)

	parser := schema.NewMessageJSONParser[classificationLLMOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, classificationLLMOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add classify prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add classify model node: %w", err)
	}
	if err := graph.AddLambdaNode("extract_json",
		compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*schema.Message, error) {
			if msg == nil {
				return nil, fmt.Errorf("empty model reply")
			}
			raw, err := ExtractJSONObject(msg.Content)
			if err != nil {
				return nil, err
			}
			out := *msg
			out.Content = raw
			return &out, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add classify extract node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add classify parser node: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prompt"},
		{"prompt", "model"},
		{"model", "extract_json"},
		{"extract_json", "parse_json"},
		{"parse_json", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add classify edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("triage.classify_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile classify graph: %w", err)
	}
	return runner, nil
}

func compileDraftGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	userTemplate string,
) (compose.Runnable[map[string]any, *schema.Message], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPromptVar),
		schema.UserMessage(userTemplate),
	)

	graph := compose.NewGraph[map[string]any, *schema.Message]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add draft prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add draft model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add draft edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add draft edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", compose.END); err != nil {
		return nil, fmt.Errorf("add draft edge model->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("triage.draft_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile draft graph: %w", err)
	}
	return runner, nil
}
