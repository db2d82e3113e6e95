package stealth

// behaviorScript is injected at level 5. It simulates human mouse movement,
// reading-pattern scrolling with micro-adjustments, and dismisses overlays
// that would otherwise distort the captured DOM.
const behaviorScript = `
(async () => {
	const wait = (ms) => new Promise(r => setTimeout(r, ms + Math.random() * ms * 0.4));

	if (navigator.webdriver) {
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	}

	const viewport = { width: window.innerWidth, height: window.innerHeight };

	for (let i = 0; i < 6; i++) {
		const x = Math.random() * viewport.width * 0.9 + viewport.width * 0.05;
		const y = Math.random() * viewport.height * 0.9 + viewport.height * 0.05;
		document.dispatchEvent(new MouseEvent('mousemove', {
			clientX: x, clientY: y, bubbles: true, cancelable: true, view: window
		}));
		await wait(180);
	}

	const totalHeight = Math.max(document.body.scrollHeight, document.documentElement.scrollHeight);
	const steps = Math.min(Math.floor(totalHeight / viewport.height), 8);
	for (let i = 0; i < steps; i++) {
		const progress = i / Math.max(steps - 1, 1);
		window.scrollTo({ top: totalHeight * progress * 0.85, behavior: 'smooth' });
		await wait(1200);
		if (Math.random() > 0.65) {
			window.scrollBy(0, (Math.random() - 0.5) * 100);
			await wait(300);
		}
		if (Math.random() > 0.75) {
			await wait(2200);
		}
	}

	window.scrollTo({ top: Math.min(viewport.height * 0.3, totalHeight * 0.1), behavior: 'smooth' });
	await wait(600);

	const overlaySelectors = ['.popup', '.modal', '.overlay', '.cookie-banner', '.newsletter-popup'];
	overlaySelectors.forEach(selector => {
		document.querySelectorAll(selector).forEach(overlay => {
			const close = overlay.querySelector('.close, .dismiss, [aria-label*="close" i]');
			if (close) { close.click(); } else if (overlay.style) { overlay.style.display = 'none'; }
		});
	});
})();
`
