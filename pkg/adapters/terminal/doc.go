// Package terminal is a prompt-driven adapter set for the engine. Its leaf
// adapters render Questions instead of widgets, and a Prompter walks the
// rendered view asking one question per visible leaf through a PromptDriver
// (survey by default).
//
//	eng, _ := engine.Render(ctx, tree, engine.WithAdapters(terminal.NewRegistry()))
//	defer eng.Close()
//	if err := terminal.NewPrompter().Fill(ctx, eng); err != nil {
//		return err
//	}
//	fmt.Println(eng.Data())
package terminal
