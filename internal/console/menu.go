package console

// Back is the selection returned by Menu for the "back" entry.
const Back = -1

// Menu shows numbered items below a title and returns the zero-based index
// of the chosen item, or Back when back is non-empty and the user picked 0.
func (c *Console) Menu(title string, items []string, back string) (int, error) {
	c.Clear()
	c.Title(title)
	for i, item := range items {
		c.Printf("  %d) %s\n", i+1, item)
	}
	if back != "" {
		c.Printf("  0) %s\n", back)
	}
	c.Println()

	min := 1
	if back != "" {
		min = 0
	}
	n, err := c.AskInt("Select", -1, min, len(items))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return Back, nil
	}
	return n - 1, nil
}

// Pick lists entries and lets the user choose one of them. It returns Back
// when the list is empty or the user picked 0.
func (c *Console) Pick(prompt string, entries []string) (int, error) {
	if len(entries) == 0 {
		c.Warnf("Nothing to choose from.")
		return Back, nil
	}
	for i, e := range entries {
		c.Printf("  %d) %s\n", i+1, e)
	}
	c.Printf("  0) Cancel\n")

	n, err := c.AskInt(prompt, -1, 0, len(entries))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return Back, nil
	}
	return n - 1, nil
}
