// Package optimus is a client for the Optimus image optimization API.
//
// A Client uploads image bytes to {endpoint}/{apiKey}?{option} and returns the
// processed image, or an *Error describing why the service refused it:
//
//	c := optimus.New("abc123")
//	out, err := c.Optimize(ctx, img, optimus.OptionWebP)
//	if errors.Is(err, optimus.ErrTooManyRequests) {
//		// back off, the account is limited to 3 requests per second
//	}
package optimus
