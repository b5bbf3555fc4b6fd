// Package instagram provides the client for fetching profile content from
// the Instagram web API.
//
// The package exposes a small content model (ContentItem, Comment) that the
// rest of the application consumes, hiding the GraphQL edge/node wire shapes
// behind lazy ItemIterator pagination. Content is fetched per profile and
// per content type; posts, reels, and IGTV use the paginated GraphQL feed,
// while stories use the reels_media endpoint and require an authenticated
// session.
//
// Example usage:
//
//	client := instagram.NewClient(30*time.Second, limiter, log)
//	iter, err := client.FetchContent(ctx, "username", instagram.ContentTypePost, session, 50)
//	if err != nil {
//		// typed *errors.Error with classification and guidance
//	}
//	for {
//		item, err := iter.Next()
//		if err == instagram.ErrEndOfFeed {
//			break
//		}
//		// process item
//	}
package instagram
