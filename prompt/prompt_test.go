package prompt_test

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/wallscreet/iso-agent/core"
	"github.com/wallscreet/iso-agent/prompt"
)

var testInstructions = prompt.Instructions{
	Name:           "juliet",
	Model:          "claude-sonnet-4-20250514",
	SystemMessage:  "You are Juliet.",
	AssistantIntro: "Hello, I'm Juliet.",
	AssistantFocus: "Help the user.",
}

func TestBuild_Layout(t *testing.T) {
	assembler := prompt.New(testInstructions)

	messages := assembler.Build(nil, nil, nil, nil, "what's up?")
	if len(messages) != 9 {
		t.Fatalf("Build returned %d messages, want 9", len(messages))
	}

	wantRoles := []core.Role{
		core.RoleSystem, core.RoleAssistant, core.RoleUser,
		core.RoleSystem, core.RoleSystem, core.RoleSystem, core.RoleSystem,
		core.RoleUser, core.RoleAssistant,
	}
	for i, want := range wantRoles {
		if messages[i].Role != want {
			t.Errorf("messages[%d].Role = %q, want %q", i, messages[i].Role, want)
		}
	}

	if messages[0].Content != "You are Juliet." {
		t.Errorf("system message = %q", messages[0].Content)
	}
	if !strings.Contains(messages[2].Content, "Help the user.") {
		t.Errorf("focus message = %q", messages[2].Content)
	}
	if messages[7].Content != "User Request: what's up?" {
		t.Errorf("request message = %q", messages[7].Content)
	}
	if messages[8].Content != "" {
		t.Errorf("final assistant placeholder = %q, want empty", messages[8].Content)
	}
}

func TestBuild_EmptyCategoriesUsePlaceholders(t *testing.T) {
	assembler := prompt.New(testInstructions)
	messages := assembler.Build(nil, nil, nil, nil, "hi")

	wantSuffixes := map[int]string{
		3: "No related Facts found",
		4: "No related memories",
		5: "No related knowledge",
		6: "No chat history",
	}
	for i, want := range wantSuffixes {
		if !strings.HasSuffix(messages[i].Content, want) {
			t.Errorf("messages[%d] = %q, want suffix %q", i, messages[i].Content, want)
		}
	}
}

func TestBuild_ContentBlocksJoined(t *testing.T) {
	assembler := prompt.New(testInstructions)
	messages := assembler.Build(
		[]string{"sun rises_in east", "sky is blue"},
		[]string{"we talked about go"},
		nil,
		[]string{"guest: hi", "juliet: hello"},
		"hi",
	)

	if want := "Facts from your Facts Table:\nsun rises_in east\nsky is blue"; messages[3].Content != want {
		t.Errorf("facts block = %q, want %q", messages[3].Content, want)
	}
	if !strings.HasSuffix(messages[4].Content, "we talked about go") {
		t.Errorf("memory block = %q", messages[4].Content)
	}
	if !strings.HasSuffix(messages[5].Content, "No related knowledge") {
		t.Errorf("knowledge block = %q", messages[5].Content)
	}
	if !strings.HasSuffix(messages[6].Content, "guest: hi\njuliet: hello") {
		t.Errorf("history block = %q", messages[6].Content)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	assembler := prompt.New(testInstructions)
	facts := []string{"sun rises_in east"}
	history := []string{"guest: hi"}

	first := assembler.Build(facts, nil, nil, history, "hello")
	second := assembler.Build(facts, nil, nil, history, "hello")
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different prompts")
	}
}

func TestLoadInstructions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instructions.yaml")
	data := `name: juliet
llm_model: claude-sonnet-4-20250514
system_message: You are Juliet.
assistant_intro: Hello.
assistant_focus: Be helpful.
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	ins, err := prompt.LoadInstructions(path)
	if err != nil {
		t.Fatalf("LoadInstructions: %v", err)
	}
	if ins.Name != "juliet" || ins.Model != "claude-sonnet-4-20250514" {
		t.Errorf("loaded instructions = %+v", ins)
	}
	if ins.SystemMessage != "You are Juliet." {
		t.Errorf("system message = %q", ins.SystemMessage)
	}

	if _, err := prompt.LoadInstructions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadInstructions on missing file succeeded")
	}
}
