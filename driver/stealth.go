package driver

// The evasion profile is a static configuration artifact: a table of
// launcher flag overrides plus a table of context-level JS overrides
// installed before any navigation. No decision logic lives here.

// launcherFlag is one browser launch flag override.
type launcherFlag struct {
	name  string
	value string // empty = bare flag
}

// stealthLaunchFlags masks the most common launch-time automation markers
// and disables background throttling that skews settle timing.
var stealthLaunchFlags = []launcherFlag{
	{name: "disable-blink-features", value: "AutomationControlled"},
	{name: "disable-features", value: "AudioServiceOutOfProcess,TranslateUI"},
	{name: "disable-ipc-flooding-protection"},
	{name: "disable-popup-blocking"},
	{name: "disable-prompt-on-repost"},
	{name: "disable-renderer-backgrounding"},
	{name: "disable-background-timer-throttling"},
	{name: "disable-backgrounding-occluded-windows"},
	{name: "disable-component-update"},
	{name: "disable-default-apps"},
	{name: "disable-dev-shm-usage"},
	{name: "disable-extensions"},
	{name: "no-first-run"},
}

// contextOverrides are evaluated on every new document before page scripts
// run. Each entry masks one fingerprinting vector: the webdriver marker,
// empty plugin/language lists, the missing chrome runtime object, and the
// headless WebGL renderer string.
var contextOverrides = []string{
	`() => { Object.defineProperty(navigator, 'webdriver', { get: () => undefined }); }`,

	`() => { Object.defineProperty(navigator, 'plugins', {
		get: () => [1, 2, 3, 4, 5],
	}); }`,

	`() => { Object.defineProperty(navigator, 'languages', {
		get: () => ['en-US', 'en'],
	}); }`,

	`() => { window.chrome = window.chrome || { runtime: {} }; }`,

	`() => {
		const getParameter = WebGLRenderingContext.prototype.getParameter;
		WebGLRenderingContext.prototype.getParameter = function (parameter) {
			if (parameter === 37445) return 'Intel Inc.';
			if (parameter === 37446) return 'Intel Iris OpenGL Engine';
			return getParameter.call(this, parameter);
		};
	}`,
}
