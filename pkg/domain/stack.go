package domain

// ReturnStack decodes the return stack stored in the document, oldest entry first.
func (d *Document) ReturnStack() []ReturnFrame {
	raw, ok := d.Get(KeyReturnStack)
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	frames := make([]ReturnFrame, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		frames = append(frames, ReturnFrame{
			RuleSetName: ToString(m["ruleSetName"]),
			RuleName:    ToString(m["ruleName"]),
		})
	}
	return frames
}

// PushReturn appends a frame to the return stack.
func (d *Document) PushReturn(frame ReturnFrame) {
	d.writeStack(append(d.ReturnStack(), frame))
}

// PopReturn removes and returns the most recent frame.
func (d *Document) PopReturn() (ReturnFrame, bool) {
	frames := d.ReturnStack()
	if len(frames) == 0 {
		return ReturnFrame{}, false
	}
	top := frames[len(frames)-1]
	d.writeStack(frames[:len(frames)-1])
	return top, true
}

func (d *Document) writeStack(frames []ReturnFrame) {
	if len(frames) == 0 {
		d.Delete(KeyReturnStack)
		return
	}
	items := make([]any, len(frames))
	for i, f := range frames {
		items[i] = map[string]any{"ruleSetName": f.RuleSetName, "ruleName": f.RuleName}
	}
	d.Set(KeyReturnStack, items)
}
