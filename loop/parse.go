package loop

import (
	"encoding/json"
	"regexp"
	"strings"
)

type shapeKind int

const (
	shapeFinalAnswer shapeKind = iota
	shapeToolAction
	shapeSelfQuestion
	shapeObservation
	shapeUnparseable
)

// shape is the result of parsing one LLM response into one of the five
// dispatch shapes the iteration loop reacts to.
type shape struct {
	kind    shapeKind
	content string
	tool    string
	input   map[string]interface{}
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parse interprets an LLM response. JSON objects (bare or fenced in
// markdown) are inspected for tool/question/observation keys; anything
// else that isn't empty is treated as a final answer, matching how a
// ReAct-style model gives its answer directly in prose rather than a
// wrapper object.
func parse(raw string) shape {
	text := strings.TrimSpace(raw)
	if text == "" {
		return shape{kind: shapeUnparseable}
	}

	candidate := text
	if m := codeFence.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		if toolName, ok := stringField(obj, "tool", "action"); ok {
			input, _ := mapField(obj, "input", "parameters", "arguments")
			return shape{kind: shapeToolAction, tool: toolName, input: input}
		}
		if question, ok := stringField(obj, "question", "self_question"); ok {
			return shape{kind: shapeSelfQuestion, content: question}
		}
		if observation, ok := stringField(obj, "observation"); ok {
			return shape{kind: shapeObservation, content: observation}
		}
		if answer, ok := stringField(obj, "final_answer", "answer"); ok {
			return shape{kind: shapeFinalAnswer, content: answer}
		}
		return shape{kind: shapeUnparseable}
	}

	return shape{kind: shapeFinalAnswer, content: text}
}

func stringField(obj map[string]interface{}, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func mapField(obj map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if m, ok := v.(map[string]interface{}); ok {
				return m, true
			}
		}
	}
	return nil, false
}
