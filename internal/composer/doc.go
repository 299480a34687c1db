// Package composer renders per-service runtime descriptors from shared
// configuration fragments.
//
// A document declares reusable fragments and the services that pull them in.
// Composing a service merges its fragments in listed order, merges the
// service's own keys on top, substitutes ${NAME} variables through a
// Resolver and decodes the result into a ResolvedService:
//
//	fragments:
//	  logging:
//	    logging:
//	      driver: local
//	      options: {max-size: 10m, max-file: "3"}
//	  general:
//	    restart: unless-stopped
//	    stdinOpen: true
//	    tty: true
//	services:
//	  flare-fsp-observer:
//	    fragments: [logging, general]
//	    image: ${DOCKER_COMPOSE_IMAGE}
//	    hostname: ${DOCKER_COMPOSE_NAME}-flare
//	    containerName: ${DOCKER_COMPOSE_NAME}-flare
//	    envFiles: [./configuration/app/flare.env]
//
// # Merge Order
//
// Later fragments override earlier ones and the service override always
// wins. Mappings merge recursively; lists and scalars are replaced.
//
// # Compose Files
//
// ImportCompose reads an ordinary docker-compose file that shares settings
// through YAML anchors and merge keys (<<: [*logging, *general]). Each
// anchor a service merges becomes a fragment of the same name.
//
// A Composer never mutates its inputs, so Compose may be called from
// multiple goroutines.
package composer
