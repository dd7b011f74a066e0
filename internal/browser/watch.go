package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

const changeBinding = "__autopilotScreenChanged"

// observeScript reports DOM mutations to the exposed binding, debounced so a
// burst of rendering counts as one change.
var observeScript = fmt.Sprintf(`(() => {
	const notify = () => { try { window.%[1]s(); } catch (e) {} };
	const start = () => {
		let timer;
		new MutationObserver(() => {
			clearTimeout(timer);
			timer = setTimeout(notify, 150);
		}).observe(document.documentElement, {childList: true, subtree: true, attributes: true, characterData: true});
		notify();
	};
	if (document.readyState === "loading") {
		document.addEventListener("DOMContentLoaded", start, {once: true});
	} else {
		start();
	}
})()`, changeBinding)

// Watch calls fn with the current source whenever the page content changes
// or the main frame navigates. fn runs on playwright's goroutine and must
// not block.
func (d *Device) Watch(fn func(source string)) error {
	if err := d.page.ExposeFunction(changeBinding, func(args ...interface{}) interface{} {
		fn(d.Source())
		return nil
	}); err != nil {
		return wrap(err)
	}
	if err := d.page.AddInitScript(playwright.Script{Content: playwright.String(observeScript)}); err != nil {
		return wrap(err)
	}
	d.page.OnFrameNavigated(func(f playwright.Frame) {
		if f.ParentFrame() == nil {
			d.logger.Debug().Str("url", f.URL()).Msg("main frame navigated")
			fn(d.Source())
		}
	})
	// The page already loaded before the init script was registered.
	if _, err := d.page.Evaluate(observeScript); err != nil {
		return wrap(err)
	}
	return nil
}
